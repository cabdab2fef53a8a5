/*
Package session implements the single-writer discipline of a debate.

Every operation that mutates the timeline or the session state runs under the lock of
its debate. Locks are local by default and can be backed by a distributed locker so
that several replicas serving the same debate never interleave two turns.
*/
package session
