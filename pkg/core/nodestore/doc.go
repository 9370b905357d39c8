/*
Package nodestore connects trie nodes to the key-value storage.

Adapter is a write-through NodeStore: every node is saved synchronously and
is immediately visible. ChangeCollector buffers node writes and deletions of
a trie mutation and applies them in a single transaction, dropping the
deletions when history of previous roots is to be preserved.

Both of them keep nodes in the storage.DataAsset column under the key

	DataAsset ++ prefix.Key ++ [prefix.Tag] ++ hash
*/
package nodestore
