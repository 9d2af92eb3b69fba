// Package password provides the credential hashing policy: bcrypt with an
// interactive-login work factor.
package password
