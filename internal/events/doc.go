// Package events provides types and interfaces for an event-driven architecture.
//
// This package defines event types and handler interfaces that allow for loose coupling
// between components in the system. The economy services emit an event after every
// committed balance mutation without knowing which handlers will process it; the
// monitoring layer's velocity check is the primary consumer.
//
// The primary components are:
// - LedgerEvent: Represents a committed fact about the economy
// - EventHandler: Interface for components that can handle events
// - EventEmitter: Interface for components that can emit events
package events
