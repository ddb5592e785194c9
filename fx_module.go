package rxkafka

import (
	"context"

	"go.uber.org/fx"
)

// ProducerFXModule is an fx.Module that provides and configures the producer
// template. This module registers the producer with the Fx dependency
// injection framework, making it available to other components in the
// application.
//
// The module provides:
// 1. *ProducerTemplate (concrete type) for direct use
// 2. Producer interface for dependency injection
// 3. Lifecycle management for graceful shutdown
//
// Usage:
//
//	app := fx.New(
//	    rxkafka.ProducerFXModule,
//	    // other modules...
//	)
var ProducerFXModule = fx.Module("rxkafka-producer",
	fx.Provide(
		NewProducerTemplateWithDI, // Provides *ProducerTemplate
		// Also provide the Producer interface
		fx.Annotate(
			func(p *ProducerTemplate) Producer { return p },
			fx.As(new(Producer)),
		),
	),
	fx.Invoke(RegisterProducerLifecycle),
)

// ConsumerFXModule is an fx.Module that provides and configures the consumer
// template, mirroring ProducerFXModule for the consuming side.
//
// Usage:
//
//	app := fx.New(
//	    rxkafka.ConsumerFXModule,
//	    // other modules...
//	)
var ConsumerFXModule = fx.Module("rxkafka-consumer",
	fx.Provide(
		NewConsumerTemplateWithDI, // Provides *ConsumerTemplate
		// Also provide the Consumer interface
		fx.Annotate(
			func(c *ConsumerTemplate) Consumer { return c },
			fx.As(new(Consumer)),
		),
	),
	fx.Invoke(RegisterConsumerLifecycle),
)

// ProducerParams groups the dependencies needed to create a producer template
type ProducerParams struct {
	fx.In

	Config          ProducerConfig
	Logger          Logger     `optional:"true"`                               // Optional logger from the logger package
	Observer        Observer   `optional:"true"`                               // Optional observer for metrics/tracing
	KeySerializer   Serializer `name:"kafka_key_serializer" optional:"true"`   // Optional key serializer override
	ValueSerializer Serializer `name:"kafka_value_serializer" optional:"true"` // Optional value serializer override
}

// NewProducerTemplateWithDI creates a new producer template using dependency
// injection. This function is designed to be used with Uber's fx dependency
// injection framework where dependencies are automatically provided via the
// ProducerParams struct.
//
// Parameters:
//   - params: A ProducerParams struct that contains the ProducerConfig
//     instance and optionally a Logger, Observer, and serializer overrides.
//     This struct embeds fx.In to enable automatic injection of these
//     dependencies.
//
// Returns:
//   - *ProducerTemplate: A fully initialized producer template ready for use
//   - error: Configuration or client construction errors
//
// Example usage with fx:
//
//	app := fx.New(
//	    rxkafka.ProducerFXModule,
//	    logger.FXModule,  // Optional: provides logger
//	    fx.Provide(
//	        func() rxkafka.ProducerConfig {
//	            return loadProducerConfig() // Your config loading function
//	        },
//	        fx.Annotate(
//	            func() rxkafka.Serializer { return &rxkafka.StringSerializer{} },
//	            fx.ResultTags(`name:"kafka_key_serializer"`),
//	        ),
//	    ),
//	)
func NewProducerTemplateWithDI(params ProducerParams) (*ProducerTemplate, error) {
	template, err := NewProducerTemplate(params.Config)
	if err != nil {
		return nil, err
	}

	if params.Logger != nil {
		template.WithLogger(params.Logger)
	}
	if params.Observer != nil {
		template.WithObserver(params.Observer)
	}
	if params.KeySerializer != nil {
		template.WithKeySerializer(params.KeySerializer)
	}
	if params.ValueSerializer != nil {
		template.WithValueSerializer(params.ValueSerializer)
	}

	return template, nil
}

// ConsumerParams groups the dependencies needed to create a consumer template
type ConsumerParams struct {
	fx.In

	Config            ConsumerConfig
	Logger            Logger       `optional:"true"`                                 // Optional logger from the logger package
	Observer          Observer     `optional:"true"`                                 // Optional observer for metrics/tracing
	KeyDeserializer   Deserializer `name:"kafka_key_deserializer" optional:"true"`   // Optional key deserializer override
	ValueDeserializer Deserializer `name:"kafka_value_deserializer" optional:"true"` // Optional value deserializer override
}

// NewConsumerTemplateWithDI creates a new consumer template using dependency
// injection, the consuming-side counterpart of NewProducerTemplateWithDI.
//
// Parameters:
//   - params: A ConsumerParams struct containing the ConsumerConfig and
//     optional Logger, Observer, and deserializer overrides.
//
// Returns:
//   - *ConsumerTemplate: A fully initialized consumer template ready for use
//   - error: Configuration or client construction errors
func NewConsumerTemplateWithDI(params ConsumerParams) (*ConsumerTemplate, error) {
	template, err := NewConsumerTemplate(params.Config)
	if err != nil {
		return nil, err
	}

	if params.Logger != nil {
		template.WithLogger(params.Logger)
	}
	if params.Observer != nil {
		template.WithObserver(params.Observer)
	}
	if params.KeyDeserializer != nil {
		template.WithKeyDeserializer(params.KeyDeserializer)
	}
	if params.ValueDeserializer != nil {
		template.WithValueDeserializer(params.ValueDeserializer)
	}

	return template, nil
}

// ProducerLifecycleParams groups the dependencies needed for producer lifecycle management
type ProducerLifecycleParams struct {
	fx.In

	Lifecycle fx.Lifecycle
	Template  *ProducerTemplate
}

// RegisterProducerLifecycle registers the producer template with the fx
// lifecycle system.
//
// The function:
//  1. On application start: Logs that the producer is ready for use
//  2. On application stop: Flushes buffered records and closes the client
//
// The underlying client connects lazily, so OnStart performs no network
// calls; the first send establishes the connection.
func RegisterProducerLifecycle(params ProducerLifecycleParams) {
	params.Lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			params.Template.logInfo(ctx, "Producer template started", map[string]interface{}{
				"client_id": params.Template.config.ClientID,
			})
			return nil
		},
		OnStop: func(ctx context.Context) error {
			params.Template.logInfo(ctx, "Shutting down producer template", nil)
			return params.Template.Close(ctx)
		},
	})
}

// ConsumerLifecycleParams groups the dependencies needed for consumer lifecycle management
type ConsumerLifecycleParams struct {
	fx.In

	Lifecycle fx.Lifecycle
	Template  *ConsumerTemplate
}

// RegisterConsumerLifecycle registers the consumer template with the fx
// lifecycle system. On stop, any active receive stream observes the shutdown
// and closes its channel before the client is released.
func RegisterConsumerLifecycle(params ConsumerLifecycleParams) {
	params.Lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			params.Template.logInfo(ctx, "Consumer template started", map[string]interface{}{
				"client_id": params.Template.config.ClientID,
				"group_id":  params.Template.config.GroupID,
			})
			return nil
		},
		OnStop: func(ctx context.Context) error {
			params.Template.logInfo(ctx, "Shutting down consumer template", nil)
			return params.Template.Close(ctx)
		},
	})
}
