// Package app contains the core application logic. It defines the main App
// struct, its configuration, and the mission lifecycle: loading the planner
// configuration, wiring the road network, goal queue, cost overlay, planner
// and supervisor together, and connecting them to the outside world.
// It is decoupled from any specific entrypoint like a CLI.
package app
