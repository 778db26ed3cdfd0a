// Package dna compiles DNA definitions written in CUE into ir.Dna.
//
// A definition is a top-level "dna" struct:
//
//	dna: {
//		name:    "blog"
//		version: "0.1.0"
//		zome: posts: {
//			entry_type: post: sharing: "public"
//			function: create_post: {
//				inputs: content: string
//				outputs: address: string
//			}
//		}
//	}
//
// Compile works on a single cue.Value; LoadDir loads every .cue file in a
// directory as one CUE instance first.
package dna
