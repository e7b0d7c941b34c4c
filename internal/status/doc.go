// Package status keeps the latest loop iteration for the status endpoints.
package status
