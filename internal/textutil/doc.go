// Package textutil provides token-frequency fingerprints and cosine similarity
// used for fuzzy title matching during document identity resolution.
//
// Tokenization lowercases text, folds Unicode (NFKD plus diacritic removal),
// splits on non-alphanumeric characters, and filters tokens shorter than 2
// characters. Fingerprints are plain term-frequency vectors with a
// precomputed norm.
package textutil
