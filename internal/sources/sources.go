// Package sources imports all source packages to trigger their init() registration.
package sources

import (
	// Import all source packages to register them with the registry.
	_ "aviation_incidents/internal/sources/asn"
	_ "aviation_incidents/internal/sources/asrs"
	_ "aviation_incidents/internal/sources/pci"
)
