/*
Package query provides the tokenizer, validator and parser for GPath, a path
language for selecting annotations in an annotated token document.

# Overview

A GPath expression navigates from a context annotation along axes, filters by
annotation type and predicates, and combines results with operators and
functions. Parsing happens in three phases:

 1. Tokenize splits the source into tokens, recording byte offsets.
 2. Validate checks bracket balance and operator placement.
 3. The parser builds an AST by precedence climbing.

# Syntax

Paths are written as steps separated by "/":

	/document/sentence[1]//person[@gender='f']
	child::name/following-sibling::*
	#word[isCapitalizedWord(.)]

A leading "/" anchors the path at the document. "//" inserts a
descendant-or-self::* step. The shorthands are:

  - "." for self::*
  - ".." for parent::*
  - "@name" for attribute::name
  - "#kw" for token::kw, where kw is a token filter such as word or first

Operators, loosest first:

	or
	and
	=  !=
	<  <=  >  >=
	+  -
	*  mod  div
	-  (unary)
	|  (union)

The operator words and "*" are treated as names unless they directly follow a
complete operand, so "a/and" selects children of type "and".

# Canonical form

Every AST node prints itself in canonical GPath: axes are spelled out and
parentheses appear only where precedence requires them. Printing and
reparsing a canonical string yields the same string.

# Caching

A Parser memoizes results in a bounded least-recently-used cache, so the same
source string always maps to the same tree while it stays cached. Callers
must not mutate returned trees.
*/
package query
