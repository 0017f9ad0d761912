// Package redisstore holds the Redis client setup and the short-lived
// credentials kept in Redis, currently the e-mailed login codes.
package redisstore
