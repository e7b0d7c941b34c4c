// Package controller maps a temperature sample to the indicator LEDs and the
// alarm buzzer.
//
// The controller has two states. COLD (green LED) holds while the temperature
// is at or below Threshold, HOT (red LED) above it. While HOT the buzzer pulses
// for PulseDuration at most once per AlarmInterval; the interval counts from
// the last actual pulse and is not reset by a return to COLD.
package controller
