package types

// Service is an instruction provider. Instructions are addressed as
// "service.method"; a bare service name resolves to its first method.
type Service interface {
	Name() string
	Methods() Signatures
	Method(name string) (Executable, error)
}
