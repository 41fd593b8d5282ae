// Command authorship runs the staged authorship-attribution pipeline and
// inspects its cached artifacts and run history.
//
// Typical use:
//
//	authorship config init
//	authorship run
//	authorship run --enable-training=false --enable-evaluation
//	authorship predict --model baseline "It was the best of times"
//	authorship artifacts prune --keep 1
package main
