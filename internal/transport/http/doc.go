// Package http implements the HTTP handlers of the pulse analysis web
// service. Handlers stay thin: they parse and validate the request,
// delegate to the service layer, and format the response.
//
// All errors are rendered as RFC 7807 problem details:
//
//	{
//	    "type": "/errors/input/unreadable-file",
//	    "title": "Unreadable Input File",
//	    "status": 422,
//	    "detail": "loading capture.xlsx: unreadable file: ...",
//	    "instance": "/api/analyze",
//	    "trace_id": "..."
//	}
//
// The analyze endpoint accepts multipart uploads and answers with
// either the annotated workbook (the default) or a JSON result when
// format=json is requested.
package http
