// Package cli provides the clinic command-line client.
//
// Every command opens the local store, wires the sync engine against the
// configured server and closes everything again before returning, so
// commands can be chained from scripts. Typical flow:
//
//	clinic register --facility <id>
//	clinic patient register --name "Asha Rao" --age 54
//	clinic bp record <patient-id> 140 90
//	clinic sync
//	clinic logout
//
// Long running background sync is available through `clinic daemon`.
// Configuration comes from flags, CLINIC_* environment variables and an
// optional config file; see internal/client/config.
package cli
