// Package plex provides a client for plex.tv accounts and Plex Media Server
// libraries and playlists.
//
// # Architecture
//
// Every call runs through the same pipeline:
//
//   - Options: RequestOptions are validated and merged with session defaults
//     into query parameters (pagination, sort, filters, passthrough params)
//   - Request: a Request descriptor carries headers, the final URL and body
//   - Transport: the request is executed and the body classified as a Result
//     or a DecodeError
//
// Resource methods on Client (Login, Libraries, Movies, Playlists, ...) are
// thin wrappers that pick a path and decode the MediaContainer envelope.
//
// # Usage
//
//	sess := session.New(session.NewMemoryStore(), logger)
//	client, err := plex.NewClient(sess, logger,
//		plex.WithTimeout(30*time.Second),
//		plex.WithConcurrency(4),
//	)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	if _, err := client.Login(ctx, "user@example.com", "secret"); err != nil {
//		log.Fatal(err)
//	}
//
//	movies, err := client.Movies(ctx, "1", plex.Paginate(1, 50).WithSort("year:desc"))
//
// # Errors
//
// Connection failures are *TransportError (errors.Is ErrTransport). Bodies
// that are not JSON are *DecodeError (errors.Is ErrDecode). A non-2xx
// response with a JSON body is not an error at the Request level; its
// status is carried in Result.StatusCode.
package plex
