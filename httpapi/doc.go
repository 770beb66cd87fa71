// Package httpapi exposes the OpenTimestamps prover over HTTP: stamping a
// digest, verifying a proof against a digest and upgrading a pending proof.
//
// @title OpenTimestamps Proof API
// @version 1.0
// @description HTTP front-end for the OpenTimestamps command line client.
// @description
// @description Every operation takes a multipart/form-data body of at most 5 KiB:
// @description - POST /timestamp: digest
// @description - POST /verify: digest, proof
// @description - POST /upgrade: proof
// @description
// @description Fields are matched by name first and by position otherwise.
//
// @contact.name API Support
// @contact.url https://github.com/LdDl/ots-potato
//
// @license.name MIT
// @license.url https://opensource.org/licenses/MIT
//
// @host localhost:7777
// @BasePath /
// @schemes http
//
// @tag.name Health
// @tag.description Liveness endpoints
//
// @tag.name Proofs
// @tag.description Create, verify and upgrade timestamp proofs
package httpapi
