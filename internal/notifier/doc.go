// Package notifier authenticates and decodes callbacks from the two
// notifiers the gateway accepts.
//
// GitHub callbacks carry a JSON body. A request is accepted when:
//   - X-GitHub-Event is present
//   - User-Agent starts with "GitHub-Hookshot"
//   - X-Hub-Signature-256 (or the legacy sha1 X-Hub-Signature) is a valid
//     HMAC of the raw body under a configured repository secret
//   - repository.full_name, when the payload carries it, names a repository
//     whose secret verified the signature
//
// Travis CI callbacks carry a URL-encoded form whose "payload" field holds a
// JSON document. A request is accepted when Travis-Repo-Slug names a
// configured repository, Authorization is the hex SHA-256 of the slug
// concatenated with that repository's CI token, and Signature is the hex
// HMAC-SHA256 of the raw body keyed by the same token.
//
// Signatures are always checked against the raw request bytes before any
// decoding takes place.
package notifier
