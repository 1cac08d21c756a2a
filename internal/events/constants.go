package events

// Marker conventions and display placeholders
const (
	// DirectReferrer is shown in place of an empty referrer.
	DirectReferrer = "direct"

	// QRReferrerPrefix marks a referrer written for a QR-code scan, e.g. "qr:flyer-a".
	QRReferrerPrefix = "qr:"
	// QRPathPrefix marks a QR landing path, e.g. "/qr/flyer-a".
	QRPathPrefix = "/qr/"
	// QRQueryParam is read from the incoming path before the query string is dropped.
	QRQueryParam = "qr"
	// UnlabeledQR is the label of a QR event whose marker carries no name.
	UnlabeledQR = "unlabeled"
)
