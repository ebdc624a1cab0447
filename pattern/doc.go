/*
Package pattern compiles and matches annotation patterns, a regular
expression language whose atoms are tokens and annotations.

# Syntax

	'Mr.'                  token literal, tokenized then matched token by token
	"[0-9]+(st|nd|rd|th)"  regular expression over the text of whole tokens
	<name gender="f">      annotation of type name with attribute gender=f
	<name test="(. = 'Jo')">
	                       annotation for which a GPath expression holds
	(A B C)                sequence
	(A | B | C)            alternation

Any element may carry a quantifier: ?, *, +, {n}, {n,} or {n,m}. Inside a
quoted value a backslash escapes the quote character.

# Matching

Matcher.Match tries the pattern at every token offset with a recursive
backtracking walk. A quantified element first tries to stop and continue with
the rest of the pattern, then tries one more repetition. Alternatives are
tried in the order written. Each walk that consumes at least one token yields
a MatchTree; walks ending on the same span are reported once.

Regular expression literals are evaluated once per document before the walk.
Annotation lookups go through an Index, which can observe a document: pass
every document.Edit returned by a mutation to Index.Apply and the affected
entries are reloaded on the next lookup.
*/
package pattern
