// Package template compiles the value and command templates of a light
// configuration into light.Renderer and light.ColorFormatter values.
//
// Templates are govaluate expressions. Inbound value templates see the raw
// payload as the string variable value (alias payload). The color command
// template sees red, green and blue as numbers and hex as the uppercase
// RRGGBB string.
//
// Helper functions:
//
//   - jq(s)            unmarshal a JSON object
//   - jq(s, selector)  apply a jq selector and return the unquoted result
//   - num(x)           parse a string into a number
//   - str(x)           format any value as a string
//   - fmt(f, args...)  fmt.Sprintf; whole numbers are passed as integers
//
// Examples for a Tasmota JSON result topic:
//
//	jq(value, '.POWER')
//	jq(value, '.Dimmer')
//	fmt('%d,%d,%d', red, green, blue)
package template
