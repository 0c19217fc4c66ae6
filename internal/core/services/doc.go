// Package services implements the driving port interfaces.
//
// The offline path is the Indexer: load, chunk, embed, persist. The online
// path is Retriever, AssembleContext and GenerationChain, held for the
// process lifetime by a ChainCache. SettingsService resolves the
// configuration both paths are built from.
//
// Services depend only on domain types and port interfaces.
package services
