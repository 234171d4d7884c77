package domain

// KeyPrefix namespaces every key searchgate writes to the shared store.
const KeyPrefix = "searchgate:"
