// Package dnsimple provides a client for the certificate endpoints of the
// DNSimple v2 API.
//
// # Architecture
//
// Every endpoint method goes through the same three steps:
//
//   - Request: a Request descriptor is built from the account id, the
//     resource path and the caller's ListOptions. Query parameters are
//     written in a fixed order so the same options always produce the same
//     query string.
//   - Transport: the request is sent through a Doer. *http.Client satisfies
//     it, and tests swap in their own.
//   - Response: a 2xx body is decoded into a Response envelope
//     ({data, pagination}), anything else becomes an *APIError.
//
// CollectAll walks every page of a list endpoint and returns a single slice.
//
// # Usage
//
//	client, err := dnsimple.NewClient(
//		dnsimple.DefaultBaseURL,
//		dnsimple.WithToken(os.Getenv("DNSIMPLE_TOKEN")),
//		dnsimple.WithLogger(logger),
//	)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	certificates, err := client.AllCertificates(ctx, "1010", "example.com", nil)
//
// # Error Handling
//
// Three kinds of failure surface from an endpoint method:
//
//   - transport errors from the Doer, returned as-is
//   - *MalformedResponseError when a 2xx body is not valid JSON
//   - *APIError for any non-2xx response
//
// API errors can be classified without parsing the message:
//
//	var apiErr *dnsimple.APIError
//	if errors.As(err, &apiErr) && apiErr.IsNotFound() {
//		// Handle missing certificate
//	}
package dnsimple
