package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/otlptranslator"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

const meterName = "cipherroom"

// NewMeter returns a meter whose instruments are exported through reg, next
// to the client_golang collectors.
func NewMeter(reg prometheus.Registerer) (metric.Meter, error) {
	exporter, err := otelprom.New(
		otelprom.WithRegisterer(reg),
		otelprom.WithoutTargetInfo(),
		otelprom.WithTranslationStrategy(otlptranslator.NoTranslation),
	)
	if err != nil {
		return nil, err
	}

	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(exporter),
		sdkmetric.WithResource(resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceNameKey.String(meterName),
		)),
	)

	return provider.Meter(meterName), nil
}

func newMeterOrNoop(reg prometheus.Registerer) metric.Meter {
	meter, err := NewMeter(reg)
	if err != nil {
		return noop.NewMeterProvider().Meter(meterName)
	}
	return meter
}
