// Package provider is the HTTP client for the external identity/financial
// provider that performs primary authentication for the gateway.
//
// Responses are decoded into closed types; anything a 2xx response fails to
// decode into is a MalformedResponse error, never a partially-populated
// grant. The client performs no retries.
package provider
