// Package filter provides the policies an index applies when it is frozen to
// decide which hashes are worth keeping.
//
// Highly repetitive k-mers dominate memory and carry little positional
// information, so an index can drop them by frequency (Fixed, Proportional),
// by explicit membership (Blacklist), or by a conjunction of policies (All).
//
// Blacklists are usually loaded from text files of "KMER<TAB>COUNT" lines kept
// in a blob store:
//
//	hashes, err := filter.LoadBlacklist(ctx, store, 16, 100, logger)
//	bl, err := filter.Blacklist(hashes, 32, 1)
//	idx, err := index.New(func(o *index.Options) {
//	    o.HashBits = 32
//	    o.Filter = filter.All(bl, filter.Fixed(1000))
//	})
package filter
