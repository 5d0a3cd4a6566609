package configdef

var HasPartialSize = hasPartialSize
