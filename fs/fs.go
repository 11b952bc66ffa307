// Package appfs embeds the static assets shipped with the binaries:
// SQL migrations, email templates and the common password list.
package appfs

import "embed"

//go:embed migrations all:templates common-passwords.txt.gz
var FS embed.FS
