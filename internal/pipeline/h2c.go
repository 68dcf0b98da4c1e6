package pipeline

// h2c support is prior-knowledge only: a caller that configures
// HTTP2ClearText gets the HTTP/2 client preface written immediately after
// the TCP handshake, with no Upgrade: h2c request/101 response exchange.
//
// This mirrors how golang.org/x/net/http2/h2c's own client-side examples
// treat h2c in the wild (the upgrade dance has no well-adopted client
// library counterpart), and keeps the pipeline's dial path uniform:
// newH2Conn is reached the same way whether the "h2" came from ALPN or
// from an explicit cleartext configuration.
