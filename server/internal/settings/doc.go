// Package settings reads and writes the synthetics dynamic settings: the
// default connector ids and the default email recipients.
//
// File reads its YAML file on every Get; nothing is cached, so an edit is
// visible to the next reconciliation. Watch reports edits as they happen.
package settings
