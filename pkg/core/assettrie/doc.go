/*
Package assettrie provides AssetTrie, a persistent authenticated key-value
map identified by its root hash.

Every mutating call commits synchronously. A mutation of an empty trie is
built in memory and saved in one transaction, a mutation of an existing trie
is applied through a nodestore.ChangeCollector and verified, an unverifiable
result is rebuilt from the full contents of the previous version. Nodes of
old versions stay in the storage unless history preservation is disabled,
Pruner removes nodes no retained root can reach.
*/
package assettrie
