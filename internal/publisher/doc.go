// Package publisher implements the Add service: an AddNumber method and a
// Notification signal carrying a random color, emitted once per interval.
//
// The same package holds the client side (Subscribe, AddNumber) so the wire
// format lives in one place.
package publisher
