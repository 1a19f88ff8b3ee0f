// Package robots holds the sample agents shipped with arena and the
// registry battle files refer to them by.
//
// Every robot is built per round by its registry factory. Handlers run on
// the robot's goroutine while it is inside a controller call, so the
// robots keep the controller from Run and use it from their handlers.
package robots
