// Package test provides infrastructure for end to end testing of the notification service.
//
// A Suite runs the real HTTP API on an httptest server backed by a file based
// SQLite store. Messages the API publishes are handed straight to the queue
// handlers by an InlineBroker, so a request through the API client is fully
// processed by the time the call returns.
//
// The package provides:
//
//   - Suite: the server, the API client, the stores and the recorded
//     side effects of one test
//
//   - InlineBroker: a synchronous stand-in for RabbitMQ
//
//   - RecordingEmailSender: an email sender that keeps every message
//
// Example Usage:
//
//	func TestExample(t *testing.T) {
//	    s := test.NewSuite(t)
//	    defer s.Cleanup()
//
//	    // Use s.APIClient to make requests
//	    // Use s.Email.Messages() to inspect delivered emails
//	}
package test
