package interfaces

// Service interface defines the methods that every kind of interface, whether
// the chat bot, the ops HTTP server, or whatever must be compliant with.
type Service interface {
	Start() error
	Stop()
}
