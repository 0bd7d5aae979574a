/**
 * Copyright (c) 2019, The Artemis Authors.
 *
 * Permission to use, copy, modify, and/or distribute this software for any
 * purpose with or without fee is hereby granted, provided that the above
 * copyright notice and this permission notice appear in all copies.
 *
 * THE SOFTWARE IS PROVIDED "AS IS" AND THE AUTHOR DISCLAIMS ALL WARRANTIES
 * WITH REGARD TO THIS SOFTWARE INCLUDING ALL IMPLIED WARRANTIES OF
 * MERCHANTABILITY AND FITNESS. IN NO EVENT SHALL THE AUTHOR BE LIABLE FOR
 * ANY SPECIAL, DIRECT, INDIRECT, OR CONSEQUENTIAL DAMAGES OR ANY DAMAGES
 * WHATSOEVER RESULTING FROM LOSS OF USE, DATA OR PROFITS, WHETHER IN AN
 * ACTION OF CONTRACT, NEGLIGENCE OR OTHER TORTIOUS ACTION, ARISING OUT OF
 * OR IN CONNECTION WITH THE USE OR PERFORMANCE OF THIS SOFTWARE.
 */

// Package iterator defines the iteration contract used by stream sources. The pattern draws
// significant inspiration from the Iterator Guidelines established for Google Cloud Client
// Libraries for Go [0]: an iterator has a single Next method which returns the next element, or
// the sentinel error Done when the iteration is complete.
//
//	it := shelf.Books()
//	for {
//		book, err := it.Next()
//		if err == iterator.Done {
//			break
//		} else if err != nil {
//			handleError(err)
//		}
//		process(book)
//	}
//
// [0]: https://github.com/googleapis/google-cloud-go/wiki/Iterator-Guidelines
package iterator

// done is defined to serve as type for Done. It allows us to define an immutable global variable.
type done int

// Error implements Go's error inteface for "done".
func (done) Error() string {
	return "no more items in iterator"
}

var _ error = done(0)

// Done is returned by an iterator's Next method when the iteration is complete; when there are no
// more items to return.
const Done done = 0

// An Iterator produces a finite sequence of elements of type T.
type Iterator[T any] interface {
	// Next returns the next element in the iteration. It returns the error iterator.Done to
	// indicate that there's no more element.
	Next() (T, error)
}

// Slice returns an iterator over the elements of s.
func Slice[T any](s []T) Iterator[T] {
	return &sliceIterator[T]{elements: s}
}

type sliceIterator[T any] struct {
	elements []T
	index    int
}

// Next implements Iterator.
func (iter *sliceIterator[T]) Next() (T, error) {
	if iter.index >= len(iter.elements) {
		var zero T
		return zero, Done
	}
	element := iter.elements[iter.index]
	iter.index++
	return element, nil
}
