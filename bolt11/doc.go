// Package bolt11 decodes and encodes BOLT #11 Lightning payment requests.
//
// Decode validates the bech32 checksum, the human readable part (network and
// optional amount), every tagged field it understands and the recoverable
// signature, and returns an Invoice. The payee node key is always recovered
// from the signature; when the invoice also carries an explicit "n" field
// the two must agree.
//
// Invoice.Sections exposes the decoded content as an ordered list of
// name/value pairs (for example "payment_hash") for callers that only need
// one field:
//
//	inv, err := bolt11.Decode(req)
//	if err != nil { return err }
//	hash, _ := inv.Section(bolt11.SectionPaymentHash)
//
// Encode is primarily used by test tooling to mint signed invoices.
package bolt11
