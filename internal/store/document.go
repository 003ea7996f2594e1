package store

import "reflect"

type Document interface {
	GetCollectionName() string
}

// documentID returns the value of the field tagged `store:"id"`.
func documentID(doc interface{}) string {
	val := reflect.ValueOf(doc)
	if val.Kind() == reflect.Ptr {
		val = val.Elem()
	}

	typ := val.Type()
	for i := 0; i < typ.NumField(); i++ {
		if tag := typ.Field(i).Tag.Get("store"); tag == "id" {
			return val.Field(i).String()
		}
	}
	return ""
}
