package telemetry

import (
	"go.mongodb.org/mongo-driver/event"
	"go.opentelemetry.io/contrib/instrumentation/go.mongodb.org/mongo-driver/mongo/otelmongo"
)

// MongoMonitor returns a command monitor that records a span per database
// command. Statement text is left out so documents never reach the collector.
func MongoMonitor() *event.CommandMonitor {
	return otelmongo.NewMonitor(otelmongo.WithCommandAttributeDisabled(true))
}
