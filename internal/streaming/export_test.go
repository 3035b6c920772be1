package streaming

// WithDialer exposes withDialer for tests.
var WithDialer = withDialer
