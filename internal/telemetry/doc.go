// Package telemetry fans each loop iteration out to optional sinks:
// InfluxDB and Prometheus collectors here, plus the status tracker, the gRPC
// health reporter and the history repository elsewhere.
//
// Sinks never influence the control path. The node logs their errors and
// carries on.
package telemetry
