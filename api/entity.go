package api

// Entity is the capability contract every resource transported through the
// client must satisfy. The client never inspects domain fields; it only needs
// to know where a resource kind lives and, once the instance has a
// server-assigned identity, where that instance lives.
type Entity interface {
	// CollectionPath returns the resource-type-level path segment, e.g.
	// "apps/". Nested resources derive it from their owner's CollectionKey.
	CollectionPath() string

	// CollectionKey returns the instance-level path segment, e.g. "apps/42/".
	// It returns the empty string until the entity has been created server
	// side.
	CollectionKey() string
}

// entityPtr constrains a type parameter to "pointer to T implementing
// Entity". Generic calls take a seed value of this type: the seed carries the
// concrete type and its path derivation before any value is known, and
// decoded results start as shallow copies of it so that fields outside the
// wire format (owner references in particular) survive decoding.
type entityPtr[T any] interface {
	Entity
	*T
}

// cloneSeed allocates a new T initialized from the seed.
func cloneSeed[T any, PT entityPtr[T]](seed PT) PT {
	item := PT(new(T))
	*item = *seed
	return item
}
