package qf

// Entity defines how an entity within the data model is identified. All
// entities that are stored in memory pools or persisted to disk implement
// this interface.
type Entity interface {

	// ID returns a unique id for this entity using a hash of the immutable
	// fields of the entity.
	ID() Identifier

	// Checksum returns a unique checksum for the entity, including the mutable
	// data such as signatures.
	Checksum() Identifier
}
