// SPDX-License-Identifier: MIT

package decision

// Summary is a flattened, string-only view of a Decision suitable for
// structured logging and metric labels.
type Summary struct {
	Outcome string
	Reason  string
	QRCode  string
}

// Summary returns a loggable/metric-friendly view of d.
func (d Decision) Summary() Summary {
	qr := d.QRCode
	if qr == "" {
		qr = "none"
	}
	return Summary{
		Outcome: string(d.Outcome),
		Reason:  string(d.Reason),
		QRCode:  qr,
	}
}
