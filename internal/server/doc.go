// Package server hosts the Fiber HTTP service in front of the origin: the
// request middleware chain, the path-prefix RouteTable built from config and
// the shared upstream http.Client. Diagnostics under /-/ bypass the proxy so
// admin routes can be registered on the same app by other packages.
package server
