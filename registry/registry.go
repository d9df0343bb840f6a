// Package registry maps connector type strings to driver factories. Drivers
// register themselves in init().
package registry

import (
	"fmt"
	"sync"

	"github.com/zoosky/prisma-engine/connector"
)

// Factory creates a backend from a connection URL.
type Factory func(url string) (connector.Transactional, error)

var (
	mu        sync.RWMutex
	factories = make(map[string]Factory)
)

// Register registers a driver factory under its connector type. Registering
// the same type twice is a programming error.
func Register(connectorType string, factory Factory) {
	mu.Lock()
	defer mu.Unlock()

	if _, exists := factories[connectorType]; exists {
		panic(fmt.Sprintf("driver %s already registered", connectorType))
	}
	factories[connectorType] = factory
}

// Get retrieves a registered driver factory.
func Get(connectorType string) (Factory, error) {
	mu.RLock()
	defer mu.RUnlock()

	factory, exists := factories[connectorType]
	if !exists {
		return nil, fmt.Errorf("driver %s not registered", connectorType)
	}
	return factory, nil
}

// Open creates a backend for the connector type and URL.
func Open(connectorType, url string) (connector.Transactional, error) {
	factory, err := Get(connectorType)
	if err != nil {
		return nil, err
	}
	return factory(url)
}

// ConnectorTypes returns every registered connector type.
func ConnectorTypes() []string {
	mu.RLock()
	defer mu.RUnlock()

	out := make([]string, 0, len(factories))
	for name := range factories {
		out = append(out, name)
	}
	return out
}
