// Package similarity implements the Similarity component (C11): token
// vocabulary, sparse vectorization, cosine similarity, brute-force K-NN, and
// anomaly scoring over Effect Signatures, per spec.md §4.11.
package similarity

import (
	"sort"
	"strconv"

	"github.com/agentci/agentci/pkg/signature"
)

// Category token prefixes, per spec.md §4.11's "fs_w:src/a.ts" /
// "net_h:api.example.com" examples.
const (
	prefixFSWrite        = "fs_w"
	prefixFSReadExternal  = "fs_r"
	prefixFSDelete        = "fs_d"
	prefixNetProtocol     = "net_p"
	prefixNetETLDPlusOne  = "net_e"
	prefixNetHost         = "net_h"
	prefixNetPort         = "net_port"
	prefixExecCommand     = "exec_c"
	prefixExecArgv        = "exec_a"
	prefixSensitiveKey    = "sens"
)

// Tokens returns the sorted, deduplicated set of vocabulary tokens a single
// signature contributes.
func Tokens(sig *signature.Signature) []string {
	if sig == nil {
		return nil
	}
	seen := make(map[string]struct{})
	add := func(prefix, value string) {
		seen[prefix+":"+value] = struct{}{}
	}

	for _, v := range sig.Effects.FSWrites {
		add(prefixFSWrite, v)
	}
	for _, v := range sig.Effects.FSReadsExternal {
		add(prefixFSReadExternal, v)
	}
	for _, v := range sig.Effects.FSDeletes {
		add(prefixFSDelete, v)
	}
	for _, v := range sig.Effects.NetProtocols {
		add(prefixNetProtocol, v)
	}
	for _, v := range sig.Effects.NetETLDPlusOne {
		add(prefixNetETLDPlusOne, v)
	}
	for _, v := range sig.Effects.NetHosts {
		add(prefixNetHost, v)
	}
	for _, v := range sig.Effects.NetPorts {
		add(prefixNetPort, strconv.Itoa(v))
	}
	for _, v := range sig.Effects.ExecCommands {
		add(prefixExecCommand, v)
	}
	for _, v := range sig.Effects.ExecArgv {
		add(prefixExecArgv, v)
	}
	for _, v := range sig.Effects.SensitiveKeysAccessed {
		add(prefixSensitiveKey, v)
	}

	out := make([]string, 0, len(seen))
	for t := range seen {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// Vocabulary is the sorted union of tokens across a collection of
// signatures, with each token's position giving its vector index.
type Vocabulary struct {
	tokens []string
	index  map[string]int
}

// BuildVocabulary computes the vocabulary of a signature collection,
// per spec.md §4.11: tokens sorted lexicographically, index = position.
func BuildVocabulary(sigs []*signature.Signature) *Vocabulary {
	seen := make(map[string]struct{})
	for _, sig := range sigs {
		for _, t := range Tokens(sig) {
			seen[t] = struct{}{}
		}
	}
	tokens := make([]string, 0, len(seen))
	for t := range seen {
		tokens = append(tokens, t)
	}
	sort.Strings(tokens)

	index := make(map[string]int, len(tokens))
	for i, t := range tokens {
		index[t] = i
	}
	return &Vocabulary{tokens: tokens, index: index}
}

// Len returns the vocabulary size.
func (v *Vocabulary) Len() int { return len(v.tokens) }

// IndexOf returns the token's position and whether it is present.
func (v *Vocabulary) IndexOf(token string) (int, bool) {
	i, ok := v.index[token]
	return i, ok
}
