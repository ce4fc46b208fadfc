// Package docs provides generated OpenAPI documentation.
//
// pdfsplit API
//
//	@title			pdfsplit API
//	@version		1.0
//	@description	Batch PDF splitting API for partitioning, repairing, and compressing documents.
//	@termsOfService	http://swagger.io/terms/
//
//	@contact.name	API Support
//	@contact.url	https://github.com/jackzampolin/pdfsplit
//
//	@license.name	MIT
//	@license.url	https://opensource.org/licenses/MIT
//
//	@host		localhost:8675
//	@BasePath	/
//
//	@schemes	http https
package docs

//go:generate swag init -g ../cmd/pdfsplit/serve.go -o ./swagger --parseDependency --parseInternal
