// Package swagger embeds the OpenAPI document served next to the Swagger UI.
package swagger

import _ "embed"

// FileName is the path segment the document is served under.
const FileName = "user-directory.swagger.json"

//go:embed user-directory.swagger.json
var Doc []byte
