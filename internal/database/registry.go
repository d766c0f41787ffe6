package database

import (
	"fmt"
	"slices"
	"strings"
	"sync"
)

var (
	// connectors maps a lower-cased connector name to its implementation.
	connectors = make(map[string]Connector)

	// connectorsMu guards connectors.
	connectorsMu sync.RWMutex
)

// Register makes a connector available under name. Names are matched
// case-insensitively. Registering the same name twice is an error.
func Register(name string, c Connector) error {
	if c == nil {
		return fmt.Errorf("register connector %q: nil connector", name)
	}
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		return fmt.Errorf("register connector: empty name")
	}

	connectorsMu.Lock()
	defer connectorsMu.Unlock()
	if _, ok := connectors[key]; ok {
		return fmt.Errorf("connector %q already registered", key)
	}
	connectors[key] = c
	return nil
}

// Lookup returns the connector registered under name.
func Lookup(name string) (Connector, error) {
	key := strings.ToLower(strings.TrimSpace(name))

	connectorsMu.RLock()
	defer connectorsMu.RUnlock()
	c, ok := connectors[key]
	if !ok {
		return nil, &UnknownConnectorError{Name: name}
	}
	return c, nil
}

// Connectors returns the registered connector names, sorted.
func Connectors() []string {
	connectorsMu.RLock()
	defer connectorsMu.RUnlock()

	names := make([]string, 0, len(connectors))
	for name := range connectors {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
