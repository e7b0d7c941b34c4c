// Package dummy provides a synthetic sensor for running the node without hardware.
//
// Readings follow a bounded random walk (20-40 °C, 30-70 %RH) and carry a
// valid DHT11 frame, so the report stream looks like a real one.
package dummy
