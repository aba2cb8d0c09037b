package service

// QRCodeService renders arbitrary content as a QR code image.
type QRCodeService interface {
	// GeneratePNG encodes content as a PNG image.
	GeneratePNG(content string) ([]byte, error)
}
