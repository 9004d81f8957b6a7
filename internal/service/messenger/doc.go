// Package messenger delivers replies and presence indicators through the
// Messenger Send API.
package messenger
