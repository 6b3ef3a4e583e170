// Package component defines the lifecycle contract shared by every
// long-running part of an edgecam service: pipeline stages, the HTTP
// server and the event hub.
//
// A Registry starts components in registration order and stops them in
// reverse, so a stage registered after its upstream stops before it.
package component
