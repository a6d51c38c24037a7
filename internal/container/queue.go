/*
Copyright 2026 The goARRG Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package container

// Queue is a FIFO backed by a power of two ring that grows on demand.
type Queue[E any] struct {
	data []E
	head int
	size int
}

func (q *Queue[E]) Len() int {
	return q.size
}

func (q *Queue[E]) Empty() bool {
	return q.size == 0
}

func (q *Queue[E]) grow() {
	n := len(q.data) * 2
	if n == 0 {
		n = 8
	}
	data := make([]E, n)
	for i := 0; i < q.size; i++ {
		data[i] = q.data[(q.head+i)&(len(q.data)-1)]
	}
	q.data = data
	q.head = 0
}

func (q *Queue[E]) Push(e E) {
	if q.size == len(q.data) {
		q.grow()
	}
	q.data[(q.head+q.size)&(len(q.data)-1)] = e
	q.size++
}

// Peek returns the oldest element, it must not be called on an empty queue.
func (q *Queue[E]) Peek() E {
	return q.data[q.head]
}

// Back returns the newest element, it must not be called on an empty queue.
func (q *Queue[E]) Back() E {
	return q.data[(q.head+q.size-1)&(len(q.data)-1)]
}

func (q *Queue[E]) Pop() E {
	var zero E
	e := q.data[q.head]
	q.data[q.head] = zero
	q.head = (q.head + 1) & (len(q.data) - 1)
	q.size--
	return e
}
