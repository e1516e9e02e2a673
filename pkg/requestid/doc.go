// Package requestid attaches a correlation ID to every HTTP request.
//
// Middleware keeps a client supplied X-Request-ID when it is 1-128 characters
// of letters, digits, '-' or '_', and generates a UUID otherwise. The ID is
// stored in the request context and echoed back in the response header.
// LoggerExtractor plugs into logger.WithContextExtractors so that records
// logged with the request context carry a request_id attribute.
package requestid
