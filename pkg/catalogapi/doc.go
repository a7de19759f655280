// Package catalogapi is the JSON HTTP surface of the product catalog.
//
// Every request passes through request id and tenant resolution middleware.
// Handlers read the resolved tenant.Context from the request and route each
// operation through catalog.With, so a request without a tenant reaches the
// gateway and fails there with 400.
//
// Routes:
//
//	GET    /health
//	GET    /api/products            ?category=&active=&q=&offset=&limit=
//	POST   /api/products
//	GET    /api/products/{id}
//	PUT    /api/products/{id}
//	DELETE /api/products/{id}
//	GET    /api/products/sku/{sku}
package catalogapi
