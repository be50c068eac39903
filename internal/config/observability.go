package config

// TraceConfig holds OTLP trace export configuration.
//
// Traces are exported over OTLP/HTTP to a local collector.
// See internal/observability for the exporter setup.
type TraceConfig struct {
	// Enabled turns trace export on. Default: false (no-op tracer).
	Enabled bool `mapstructure:"enabled" json:"enabled"`
	// Endpoint is the OTLP/HTTP collector endpoint (default: localhost:4318)
	Endpoint string `mapstructure:"endpoint" json:"endpoint"`
	// Environment is the deployment environment tag (default: dev)
	Environment string `mapstructure:"environment" json:"environment"`
	// ServiceName is the service name on exported spans (default: owlia)
	ServiceName string `mapstructure:"service_name" json:"service_name"`
}
