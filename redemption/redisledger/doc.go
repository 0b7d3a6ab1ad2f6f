// Package redisledger implements redemption.Ledger on Redis so that every
// replica behind a paywall shares one view of redeemed payment hashes.
//
// Each redemption is a single SET NX with the record TTL as expiry, which
// makes the check-and-set atomic across clients. Records lapse through Redis
// key expiry; no sweeper runs.
//
// Example:
//
//	ledger, _ := redisledger.New(redisledger.Config{RedisAddr: "localhost:6379"})
//	defer ledger.Close()
package redisledger
