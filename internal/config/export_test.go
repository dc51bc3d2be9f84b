package config

var LoadWithLookup = load
