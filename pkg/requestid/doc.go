// Package requestid tags every HTTP request with a correlation id.
//
// The middleware reuses a well-formed id from the incoming header, generates
// a UUID otherwise, echoes it on the response and stores it in the request
// context. LoggerExtractor adds it to every log record written with that
// context, next to the tenant attributes added by the tenant package.
package requestid
