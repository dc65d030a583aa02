// Package services provides business logic and orchestration services.
//
// This file implements list repositioning used by drag-and-drop: moving an
// element to an insertion index within its own list or into another list.

package services

// Reposition moves the element with the given id so that it ends up at the
// insertion index to within the same list. The insertion index refers to
// positions in the list as it looks before the move, which is what a drop
// target reports. Out of range indexes are clamped; an unknown id returns an
// unchanged copy. The input slice is never modified.
func Reposition[T any](list []T, id string, to int, idOf func(T) string) []T {
	out := append([]T(nil), list...)
	from := indexOf(out, id, idOf)
	if from < 0 {
		return out
	}
	elem := out[from]
	out = append(out[:from], out[from+1:]...)
	// Removing the element shifted everything after it one slot left.
	if from < to {
		to--
	}
	return insertAt(out, clampIndex(to, len(out)), elem)
}

// RepositionAcross moves the element with the given id from src into dst at
// the insertion index to. Both results are fresh slices. An unknown id
// returns unchanged copies.
func RepositionAcross[T any](src, dst []T, id string, to int, idOf func(T) string) (newSrc, newDst []T) {
	newSrc = append([]T(nil), src...)
	newDst = append([]T(nil), dst...)
	from := indexOf(newSrc, id, idOf)
	if from < 0 {
		return newSrc, newDst
	}
	elem := newSrc[from]
	newSrc = append(newSrc[:from], newSrc[from+1:]...)
	newDst = insertAt(newDst, clampIndex(to, len(newDst)), elem)
	return newSrc, newDst
}

func indexOf[T any](list []T, id string, idOf func(T) string) int {
	for i, v := range list {
		if idOf(v) == id {
			return i
		}
	}
	return -1
}

func clampIndex(i, n int) int {
	if i < 0 {
		return 0
	}
	if i > n {
		return n
	}
	return i
}

func insertAt[T any](list []T, i int, v T) []T {
	list = append(list, v)
	copy(list[i+1:], list[i:])
	list[i] = v
	return list
}
