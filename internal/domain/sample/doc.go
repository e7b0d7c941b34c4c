// Package sample contains the core domain types of the node: one sensor
// sample as transmitted by a DHT11 and the outcome of one loop iteration.
package sample
