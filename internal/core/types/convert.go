package types

import "math"

// Brightness scales. Consumers use 1-255, the provider uses 0-100.
const (
	ConsumerBrightnessMin = 1
	ConsumerBrightnessMax = 255
	ProviderBrightnessMin = 0
	ProviderBrightnessMax = 100
)

// ConsumerToProviderBrightness converts 1-255 to 0-100, rounding half-up.
// 255 maps to 100 and 128 to 50.
func ConsumerToProviderBrightness(v int) int {
	scaled := float64(v-ConsumerBrightnessMin) *
		float64(ProviderBrightnessMax-ProviderBrightnessMin) /
		float64(ConsumerBrightnessMax-ConsumerBrightnessMin)
	return ProviderBrightnessMin + int(math.Round(scaled))
}

// ProviderToConsumerBrightness converts 0-100 back to 1-255.
func ProviderToConsumerBrightness(v int) int {
	scaled := float64(v-ProviderBrightnessMin) *
		float64(ConsumerBrightnessMax-ConsumerBrightnessMin) /
		float64(ProviderBrightnessMax-ProviderBrightnessMin)
	return ConsumerBrightnessMin + int(math.Round(scaled))
}
