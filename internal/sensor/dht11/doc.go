// Package dht11 reads an Aosong DHT11 over a single GPIO line.
//
// The host pulls the line low for at least 18 ms, then releases it. The sensor
// answers with 80 µs low and 80 µs high, followed by 40 bits. Each bit is a
// 50 µs low then a high whose width encodes the value: about 27 µs for 0 and
// 70 µs for 1. The five bytes are humidity integral, humidity decimal,
// temperature integral, temperature decimal and a checksum equal to the low
// byte of the sum of the first four.
//
// The sensor must not be polled faster than once per second.
package dht11
